// Command stratum inspects and merges configuration documents.
//
// It resolves the same directives the library resolves (!include_yaml,
// !include_runtime, !runtime), so it doubles as a way to preview what an
// application will actually see at startup.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/stratum"
	"github.com/dshills/stratum/loader"
	"github.com/dshills/stratum/tree"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if stratum.IsConfigurationError(err) {
			log.Error("invalid configuration", "err", err)
			os.Exit(2)
		}
		log.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "stratum",
		Short:         "Inspect and merge layered configuration documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newDumpCmd())
	root.AddCommand(newMergeCmd())
	root.AddCommand(newGetCmd())
	root.AddCommand(newDiffCmd())
	root.AddCommand(newCheckCmd())

	return root
}

// runtimeArgs collects repeated --arg key=value flags into an ArgSource.
func runtimeArgs(pairs []string) (stratum.MapSource, error) {
	src := stratum.MapSource{}
	for _, pair := range pairs {
		key, val, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed --arg %q, want key=value", pair)
		}
		src[key] = val
	}
	return src, nil
}

// loadDocument loads a configuration document, choosing the decoder by
// file extension. YAML documents get the runtime argument source for
// directive resolution.
func loadDocument(path string, args stratum.MapSource) (tree.Map, error) {
	switch filepath.Ext(path) {
	case ".toml":
		return loader.NewTOMLLoader(path).Load()
	case ".json":
		return loader.NewJSONLoader(path).Load()
	default:
		l := loader.NewYAMLLoader(path)
		if len(args) > 0 {
			l.SetRuntime(args)
		}
		return l.Load()
	}
}

func printYAML(cmd *cobra.Command, val any) error {
	out, err := yaml.Marshal(val)
	if err != nil {
		return fmt.Errorf("rendering output: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}

func newDumpCmd() *cobra.Command {
	var args []string

	cmd := &cobra.Command{
		Use:   "dump FILE",
		Short: "Resolve directives and print a normalized document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, posArgs []string) error {
			src, err := runtimeArgs(args)
			if err != nil {
				return err
			}
			doc, err := loadDocument(posArgs[0], src)
			if err != nil {
				return err
			}
			if doc == nil {
				return fmt.Errorf("no such document: %s", posArgs[0])
			}
			return printYAML(cmd, doc)
		},
	}

	cmd.Flags().StringArrayVar(&args, "arg", nil, "runtime argument key=value for !runtime directives")
	return cmd
}

func newMergeCmd() *cobra.Command {
	var args []string

	cmd := &cobra.Command{
		Use:   "merge BASE OVERLAY [OVERLAY...]",
		Short: "Overlay documents left to right and print the result",
		Long: "Overlay documents left to right and print the result.\n" +
			"Later documents win; a null value deletes the key it names.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, paths []string) error {
			src, err := runtimeArgs(args)
			if err != nil {
				return err
			}

			merged := tree.Map{}
			for _, path := range paths {
				doc, err := loadDocument(path, src)
				if err != nil {
					return err
				}
				if doc == nil {
					return fmt.Errorf("no such document: %s", path)
				}
				merged = tree.OverlayMap(merged, doc)
			}
			return printYAML(cmd, merged)
		},
	}

	cmd.Flags().StringArrayVar(&args, "arg", nil, "runtime argument key=value for !runtime directives")
	return cmd
}

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get FILE PATH",
		Short: "Print the value at a dotted path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, posArgs []string) error {
			doc, err := loadDocument(posArgs[0], nil)
			if err != nil {
				return err
			}
			val, ok := tree.GetByPath(doc, posArgs[1])
			if !ok {
				return stratum.Configf(posArgs[1], "not present in %s", posArgs[0])
			}
			return printYAML(cmd, val)
		},
	}
	return cmd
}

func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "List the dotted paths that differ between two documents",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, posArgs []string) error {
			oldDoc, err := loadDocument(posArgs[0], nil)
			if err != nil {
				return err
			}
			newDoc, err := loadDocument(posArgs[1], nil)
			if err != nil {
				return err
			}

			added, modified, removed := tree.Diff(oldDoc, newDoc)
			out := cmd.OutOrStdout()
			for _, path := range added {
				fmt.Fprintf(out, "+ %s\n", path)
			}
			for _, path := range modified {
				fmt.Fprintf(out, "~ %s\n", path)
			}
			for _, path := range removed {
				fmt.Fprintf(out, "- %s\n", path)
			}
			return nil
		},
	}
	return cmd
}

func newCheckCmd() *cobra.Command {
	var args []string

	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Parse a document, resolve its directives, and report errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, posArgs []string) error {
			src, err := runtimeArgs(args)
			if err != nil {
				return err
			}
			doc, err := loadDocument(posArgs[0], src)
			if err != nil {
				return err
			}
			if doc == nil {
				return fmt.Errorf("no such document: %s", posArgs[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", posArgs[0])
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&args, "arg", nil, "runtime argument key=value for !runtime directives")
	return cmd
}
