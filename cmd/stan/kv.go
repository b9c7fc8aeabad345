package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/stan/internal/errors"
	"github.com/vango-dev/stan/pkg/stan"
)

// withBackend loads the configuration, opens the backend and runs fn.
func (c *cli) withBackend(cmd *cobra.Command, fn func(ctx context.Context, b backend) error) error {
	if err := c.load(cmd); err != nil {
		return err
	}
	b, err := openBackend(c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(cmd.Context(), b)
}

func notFound(key string) error {
	return errors.New(errors.CodeUnknownField).
		WithField(key).
		WithDetail("No value is stored under " + key + ".").
		WithSuggestion("Run 'stan list' to see the stored keys")
}

func getCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the stored value of a key as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			return c.withBackend(cmd, func(ctx context.Context, b backend) error {
				v, err := b.Read(ctx, key, nil)
				if errors.Is(err, stan.ErrNoSnapshot) {
					return notFound(key)
				}
				if err != nil {
					return err
				}
				data, err := json.MarshalIndent(v, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			})
		},
	}
}

// parseValue reads a JSON literal; anything that is not valid JSON is
// taken as a string.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

func setCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a value under a key",
		Long: `Store a value under a key. The value is parsed as JSON; anything that
is not valid JSON is stored as a string.

Examples:
  stan set count 3
  stan set user '{"name": "jane"}'
  stan set theme dark`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], parseValue(args[1])
			return c.withBackend(cmd, func(ctx context.Context, b backend) error {
				if err := b.Write(ctx, key, value); err != nil {
					return err
				}
				success(cmd.OutOrStdout(), "Stored %s", key)
				return nil
			})
		},
	}
}

func listCmd(c *cli) *cobra.Command {
	var values bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the stored keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withBackend(cmd, func(ctx context.Context, b backend) error {
				keys, err := b.Keys(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, key := range keys {
					if !values {
						fmt.Fprintln(out, key)
						continue
					}
					v, err := b.Read(ctx, key, nil)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s = %s\n", key, sprintJSON(v))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&values, "values", "v", false, "Print values next to the keys")

	return cmd
}

func deleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <key>",
		Aliases: []string{"rm"},
		Short:   "Remove a stored key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			return c.withBackend(cmd, func(ctx context.Context, b backend) error {
				if err := b.Delete(ctx, key); err != nil {
					return err
				}
				success(cmd.OutOrStdout(), "Deleted %s", key)
				return nil
			})
		},
	}
}

// sprintJSON renders v on one line.
func sprintJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
