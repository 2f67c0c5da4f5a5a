package formdisplay_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-entity/pkg/simpleentity"
	"github.com/tendant/simple-entity/pkg/simpleentity/formdisplay"
	"github.com/tendant/simple-entity/pkg/simpleentity/storage/memory"
)

func TestStore_LoadMissingReturnsEmptyDisplay(t *testing.T) {
	store := formdisplay.New(memory.New())

	display, err := store.Load(context.Background(), "node", "article", "default")
	require.NoError(t, err)
	assert.Equal(t, "node", display.EntityType)
	assert.Equal(t, "article", display.Bundle)
	assert.Equal(t, "default", display.Mode)
	assert.True(t, display.Status)
	assert.Empty(t, display.Components)
}

func TestStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	blobs := memory.New()
	store := formdisplay.New(blobs, formdisplay.WithPrefix("config/"))

	display := simpleentity.NewFormDisplay("node", "article", "default")
	display.Components["field_summary"] = simpleentity.FormComponent{Type: "string_textfield", Weight: 0, Region: "content"}
	display.Hidden = []string{"field_internal"}
	require.NoError(t, store.Save(ctx, display))

	key := "config/core.entity_form_display.node.article.default.yml"
	mimeType, ok := blobs.MimeType(key)
	require.True(t, ok)
	assert.Equal(t, formdisplay.MimeType, mimeType)

	reader, err := blobs.Download(ctx, key)
	require.NoError(t, err)
	raw, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "target_entity_type: node")
	assert.Contains(t, string(raw), "string_textfield")

	loaded, err := store.Load(ctx, "node", "article", "default")
	require.NoError(t, err)
	assert.Equal(t, display.Components, loaded.Components)
	assert.Equal(t, []string{"field_internal"}, loaded.Hidden)

	require.NoError(t, store.Delete(ctx, "node", "article", "default"))
	require.NoError(t, store.Delete(ctx, "node", "article", "default"))
	assert.Empty(t, blobs.Keys())
}

func TestDecode_HandwrittenDocument(t *testing.T) {
	doc := strings.Join([]string{
		"target_entity_type: node",
		"bundle: page",
		"mode: default",
		"status: true",
		"content:",
		"  body:",
		"    type: text_textarea",
		"    weight: 3",
		"    region: content",
		"",
	}, "\n")

	display, err := formdisplay.Decode([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "page", display.Bundle)
	require.Contains(t, display.Components, "body")
	assert.Equal(t, 3, display.Components["body"].Weight)
	assert.Equal(t, 4, display.NextWeight())
}

func TestConfigName(t *testing.T) {
	assert.Equal(t, "core.entity_form_display.paragraph.gallery.default",
		formdisplay.ConfigName("paragraph", "gallery", "default"))
}
