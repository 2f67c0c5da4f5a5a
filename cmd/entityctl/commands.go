package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tendant/simple-entity/pkg/simpleentity"
)

func newVocabularyCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "vocabulary",
		Aliases: []string{"vocab"},
		Short:   "Manage taxonomy vocabularies",
	}

	var description string
	create := &cobra.Command{
		Use:   "create <id> <name>",
		Short: "Create a vocabulary",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, svc simpleentity.Service, out io.Writer) error {
				v, err := svc.CreateVocabulary(ctx, simpleentity.CreateVocabularyRequest{
					ID:          args[0],
					Name:        args[1],
					Description: description,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(out, v.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&description, "description", "", "vocabulary description")

	list := &cobra.Command{
		Use:   "list",
		Short: "List vocabularies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, svc simpleentity.Service, out io.Writer) error {
				vocabularies, err := svc.ListVocabularies(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME")
				for _, v := range vocabularies {
					fmt.Fprintf(tw, "%s\t%s\n", v.ID, v.Name)
				}
				return tw.Flush()
			})
		},
	}

	cmd.AddCommand(create, list)
	return cmd
}

func newTermCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "term",
		Short: "Resolve, create and delete taxonomy terms",
	}

	resolve := &cobra.Command{
		Use:   "resolve <vocabulary> <name>",
		Short: "Print the id of a term, creating it if missing",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, svc simpleentity.Service, out io.Writer) error {
				id, err := svc.ResolveTerm(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintln(out, id)
				return nil
			})
		},
	}

	var description string
	var weight int
	create := &cobra.Command{
		Use:   "create <vocabulary> <name>",
		Short: "Create a term, failing if the name is taken",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, svc simpleentity.Service, out io.Writer) error {
				term, err := svc.CreateTerm(ctx, simpleentity.CreateTermRequest{
					VocabularyID: args[0],
					Name:         args[1],
					Description:  description,
					Weight:       weight,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(out, term.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&description, "description", "", "term description")
	create.Flags().IntVar(&weight, "weight", 0, "term weight")

	del := &cobra.Command{
		Use:   "delete <vocabulary> <name>",
		Short: "Delete the first term with the given name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, svc simpleentity.Service, out io.Writer) error {
				deleted, err := svc.DeleteTerm(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if deleted {
					fmt.Fprintf(out, "Deleted term %s.\n", args[1])
				} else {
					fmt.Fprintf(out, "No term named %s.\n", args[1])
				}
				return nil
			})
		},
	}

	list := &cobra.Command{
		Use:   "list <vocabulary>",
		Short: "List the terms of a vocabulary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, svc simpleentity.Service, out io.Writer) error {
				terms, err := svc.ListTerms(ctx, args[0])
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tWEIGHT")
				for _, t := range terms {
					fmt.Fprintf(tw, "%s\t%s\t%d\n", t.ID, t.Name, t.Weight)
				}
				return tw.Flush()
			})
		},
	}

	id := &cobra.Command{
		Use:   "id <vocabulary> <name>",
		Short: "Print the id of an existing term",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, svc simpleentity.Service, out io.Writer) error {
				termID, err := svc.GetTermID(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintln(out, termID)
				return nil
			})
		},
	}

	name := &cobra.Command{
		Use:   "name <term-id>",
		Short: "Print the name of a term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			termID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid term id %q: %w", args[0], err)
			}
			return a.run(cmd, func(ctx context.Context, svc simpleentity.Service, out io.Writer) error {
				termName, err := svc.GetTermName(ctx, termID)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, termName)
				return nil
			})
		},
	}

	cmd.AddCommand(resolve, create, del, list, id, name)
	return cmd
}

func newNodeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Create and bulk-update nodes",
	}

	var (
		bundle    string
		title     string
		published bool
		createSet []string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseAssignments(createSet)
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, svc simpleentity.Service, out io.Writer) error {
				node, err := svc.CreateNode(ctx, simpleentity.CreateNodeRequest{
					Bundle:    bundle,
					Title:     title,
					Published: published,
					Fields:    fields,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(out, node.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&bundle, "bundle", "", "node bundle")
	create.Flags().StringVar(&title, "title", "", "node title")
	create.Flags().BoolVar(&published, "published", false, "publish the node")
	create.Flags().StringArrayVar(&createSet, "set", nil, "field value as name=value (repeatable)")
	_ = create.MarkFlagRequired("bundle")

	var (
		ids       []string
		updateSet []string
	)
	update := &cobra.Command{
		Use:   "update",
		Short: "Apply the same field values to several nodes",
		Long: `Apply field values to every node given with --id.

Values are parsed as JSON when possible, so --set field_count=3 stores a
number and --set 'field_tags=[{"target_id":"..."}]' stores a list.
Empty values leave the field unchanged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			nodeIDs := make([]uuid.UUID, 0, len(ids))
			for _, raw := range ids {
				id, err := uuid.Parse(raw)
				if err != nil {
					return fmt.Errorf("invalid node id %q: %w", raw, err)
				}
				nodeIDs = append(nodeIDs, id)
			}
			fields, err := parseAssignments(updateSet)
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, svc simpleentity.Service, out io.Writer) error {
				updated, err := svc.UpdateNodes(ctx, nodeIDs, fields)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Updated %d of %d node(s).\n", updated, len(nodeIDs))
				return nil
			})
		},
	}
	update.Flags().StringSliceVar(&ids, "id", nil, "node id (repeatable or comma separated)")
	update.Flags().StringArrayVar(&updateSet, "set", nil, "field value as name=value (repeatable)")
	_ = update.MarkFlagRequired("id")
	_ = update.MarkFlagRequired("set")

	cmd.AddCommand(create, update)
	return cmd
}

func newFieldCommand(a *app) *cobra.Command {
	var entityType string

	cmd := &cobra.Command{
		Use:   "field",
		Short: "Attach, require and remove bundle fields",
	}
	cmd.PersistentFlags().StringVar(&entityType, "entity-type", simpleentity.EntityTypeNode, "entity type")

	var (
		fieldType string
		label     string
		required  bool
	)
	add := &cobra.Command{
		Use:   "add <bundle> <field>",
		Short: "Attach a field to a bundle and its form display",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := simpleentity.FieldType(fieldType)
			if !simpleentity.IsValidFieldType(t) {
				return fmt.Errorf("invalid field type %q", fieldType)
			}
			return a.run(cmd, func(ctx context.Context, svc simpleentity.Service, out io.Writer) error {
				_, err := svc.AddField(ctx, simpleentity.AddFieldRequest{
					EntityType: entityType,
					Bundle:     args[0],
					FieldName:  args[1],
					Label:      label,
					Type:       t,
					Required:   required,
				})
				return err
			})
		},
	}
	add.Flags().StringVar(&fieldType, "type", string(simpleentity.FieldTypeString), "field type")
	add.Flags().StringVar(&label, "label", "", "field label (defaults to the field name)")
	add.Flags().BoolVar(&required, "required", false, "mark the field required")

	var requireValue bool
	require := &cobra.Command{
		Use:   "require <bundle> <field>",
		Short: "Set or clear the required flag of a field",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, svc simpleentity.Service, out io.Writer) error {
				if err := svc.RequireField(ctx, entityType, args[0], args[1], requireValue); err != nil {
					return err
				}
				fmt.Fprintf(out, "%s.%s required=%t\n", args[0], args[1], requireValue)
				return nil
			})
		},
	}
	require.Flags().BoolVar(&requireValue, "required", true, "required flag value")

	remove := &cobra.Command{
		Use:   "remove <bundle> <field>",
		Short: "Detach a field from a bundle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, svc simpleentity.Service, out io.Writer) error {
				return svc.RemoveField(ctx, entityType, args[0], args[1])
			})
		},
	}

	list := &cobra.Command{
		Use:   "list <bundle>",
		Short: "List the fields of a bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, svc simpleentity.Service, out io.Writer) error {
				fields, err := svc.ListFields(ctx, entityType, args[0])
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "FIELD\tTYPE\tLABEL\tREQUIRED")
				for _, f := range fields {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", f.FieldName, f.Type, f.Label, f.Required)
				}
				return tw.Flush()
			})
		},
	}

	cmd.AddCommand(add, require, remove, list)
	return cmd
}

// parseAssignments turns name=value pairs into field values. Values that
// parse as JSON keep their JSON type; anything else is a plain string.
func parseAssignments(pairs []string) (map[string]interface{}, error) {
	fields := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid assignment %q, expected name=value", pair)
		}
		var value interface{}
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		fields[name] = value
	}
	return fields, nil
}
