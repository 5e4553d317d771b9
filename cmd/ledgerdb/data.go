package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/wire"
	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

func newFindCmd(a *app) *cobra.Command {
	var (
		sortSpec    string
		skip, limit int64
	)
	cmd := &cobra.Command{
		Use:   "find <collection> [filter]",
		Short: "Print matching documents, one JSON object per line",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			filter, err := optionalDocument(ctx, args, 1)
			if err != nil {
				return err
			}
			sort, err := parseSort(sortSpec)
			if err != nil {
				return err
			}
			coll, err := a.collection(ctx, args[0])
			if err != nil {
				return err
			}

			cur, err := coll.Find(ctx, filter)
			if err != nil {
				return err
			}
			defer cur.Close()
			if len(sort) > 0 {
				cur = cur.Sort(sort)
			}
			docs, err := cur.Skip(skip).Limit(limit).ToArray(ctx)
			if err != nil {
				return err
			}
			return a.printDocuments(docs)
		},
	}
	cmd.Flags().StringVar(&sortSpec, "sort", "", "sort fields, e.g. qty:-1,sku")
	cmd.Flags().Int64Var(&skip, "skip", 0, "documents to skip")
	cmd.Flags().Int64Var(&limit, "limit", -1, "maximum documents to print, negative for all")
	return cmd
}

func newInsertCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "insert <collection> <document|documents>",
		Short: "Insert a document, or every document of a JSON array",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			coll, err := a.collection(ctx, args[0])
			if err != nil {
				return err
			}

			raw := bytes.TrimSpace([]byte(args[1]))
			if len(raw) > 0 && raw[0] == '[' {
				docs, err := wire.DecodeDocuments(ctx, raw)
				if err != nil {
					return err
				}
				items := make([]any, len(docs))
				for n, doc := range docs {
					items[n] = doc
				}
				res, err := coll.InsertMany(ctx, items)
				if err != nil {
					return err
				}
				return a.printJSON(res)
			}

			doc, err := requiredDocument(ctx, args[1])
			if err != nil {
				return err
			}
			res, err := coll.InsertOne(ctx, doc)
			if err != nil {
				return err
			}
			return a.printJSON(res)
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	var many bool
	cmd := &cobra.Command{
		Use:   "update <collection> <filter> <update>",
		Short: "Update the first matching document, or all of them with --many",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			filter, err := optionalDocument(ctx, args, 1)
			if err != nil {
				return err
			}
			upd, err := requiredDocument(ctx, args[2])
			if err != nil {
				return err
			}
			coll, err := a.collection(ctx, args[0])
			if err != nil {
				return err
			}

			var res domain.UpdateResult
			if many {
				res, err = coll.UpdateMany(ctx, filter, upd)
			} else {
				res, err = coll.UpdateOne(ctx, filter, upd)
			}
			if err != nil {
				return err
			}
			return a.printJSON(res)
		},
	}
	cmd.Flags().BoolVar(&many, "many", false, "update every matching document")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var many bool
	cmd := &cobra.Command{
		Use:   "delete <collection> [filter]",
		Short: "Delete the first matching document, or all of them with --many",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			filter, err := optionalDocument(ctx, args, 1)
			if err != nil {
				return err
			}
			coll, err := a.collection(ctx, args[0])
			if err != nil {
				return err
			}

			var res domain.DeleteResult
			if many {
				res, err = coll.DeleteMany(ctx, filter)
			} else {
				res, err = coll.DeleteOne(ctx, filter)
			}
			if err != nil {
				return err
			}
			return a.printJSON(res)
		},
	}
	cmd.Flags().BoolVar(&many, "many", false, "delete every matching document")
	return cmd
}

func newAggregateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "aggregate <collection> <pipeline>",
		Short: "Run an aggregation pipeline given as a JSON array",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pipeline, err := wire.DecodeDocuments(ctx, []byte(args[1]))
			if err != nil {
				return fmt.Errorf("invalid pipeline: %w", err)
			}
			coll, err := a.collection(ctx, args[0])
			if err != nil {
				return err
			}
			res, err := coll.Aggregate(ctx, pipeline)
			if err != nil {
				return err
			}
			return a.printDocuments(res)
		},
	}
}

func newIndexesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "indexes <collection>",
		Short: "List the index metadata of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			coll, err := a.collection(ctx, args[0])
			if err != nil {
				return err
			}
			idx, err := coll.ListIndexes(ctx)
			if err != nil {
				return err
			}
			return a.printJSON(idx)
		},
	}
}

func (a *app) collection(ctx context.Context, name string) (domain.Collection, error) {
	db, err := a.database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

func (a *app) printDocuments(docs []domain.Document) error {
	for _, doc := range docs {
		b, err := wire.Encode(doc)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(a.out, string(b)); err != nil {
			return err
		}
	}
	return nil
}

// optionalDocument decodes args[n] when present. A missing argument is a nil
// filter.
func optionalDocument(ctx context.Context, args []string, n int) (any, error) {
	if len(args) <= n {
		return nil, nil
	}
	doc, err := wire.DecodeDocument(ctx, []byte(args[n]))
	if err != nil {
		return nil, fmt.Errorf("invalid document %q: %w", args[n], err)
	}
	if doc == nil {
		return nil, nil
	}
	return doc, nil
}

func requiredDocument(ctx context.Context, arg string) (domain.Document, error) {
	doc, err := wire.DecodeDocument(ctx, []byte(arg))
	if err != nil {
		return nil, fmt.Errorf("invalid document %q: %w", arg, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("invalid document %q: expected an object", arg)
	}
	return doc, nil
}

// parseSort reads "field[:order],..." where order is 1 or -1.
func parseSort(spec string) (domain.Sort, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, nil
	}
	var sort domain.Sort
	for _, part := range strings.Split(spec, ",") {
		key, order, found := strings.Cut(strings.TrimSpace(part), ":")
		if key == "" {
			return nil, fmt.Errorf("invalid sort %q: empty field", spec)
		}
		dir := int64(1)
		if found {
			n, err := strconv.ParseInt(order, 10, 64)
			if err != nil || (n != 1 && n != -1) {
				return nil, fmt.Errorf("invalid sort order %q for %s", order, key)
			}
			dir = n
		}
		sort = append(sort, domain.SortName{Key: key, Order: dir})
	}
	return sort, nil
}
