// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/Thermoquad/tiroterm/pkg/session"
	"github.com/Thermoquad/tiroterm/pkg/tiro"
	"github.com/spf13/cobra"
)

var (
	chainName     string
	chainAutoName bool
)

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Send, save and recall chained-play sequences",
	Long: `A chain holds up to 40 segment numbers that are played back to back.
The whole chain is sent as one write of consecutive play frames.

Named chains are kept in the command history file (command_history.json by
default) so they can be recalled later.`,
}

var chainSendCmd = &cobra.Command{
	Use:   "send [value...]",
	Short: "Send a chain given as values or by saved name",
	Example: `  tiroterm chain send 1 2 3 --port /dev/ttyUSB0
  tiroterm chain send --name greeting --port /dev/ttyUSB0`,
	RunE: func(cmd *cobra.Command, args []string) error {
		chain, err := resolveChain(args)
		if err != nil {
			return err
		}
		return sendOnce(cmd.OutOrStdout(), func(s *session.Session) (session.Sent, error) {
			return s.Chain(chain, active.mode)
		})
	},
}

var chainSaveCmd = &cobra.Command{
	Use:   "save [name] <value>...",
	Short: "Save a new named chain",
	Long: `Save a new named chain. The name must not already exist; use
'chain update' to change an existing one. With --auto the name is chosen as
"chain N".`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}

		name := store.NextName()
		if !chainAutoName {
			if len(args) < 2 {
				return errors.New("a name and at least one value are required (or use --auto)")
			}
			name, args = args[0], args[1:]
		}

		chain, err := parseChain(args)
		if err != nil {
			return err
		}
		if err := store.SaveNew(name, chain.Tokens()); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Saved %q: %s\n", name, chain.Command())
		return nil
	},
}

var chainUpdateCmd = &cobra.Command{
	Use:   "update <name> <value>...",
	Short: "Replace the values of a saved chain",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}

		chain, err := parseChain(args[1:])
		if err != nil {
			return err
		}
		if err := store.UpdateExisting(args[0], chain.Tokens()); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Updated %q: %s\n", args[0], chain.Command())
		return nil
	},
}

var chainShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a saved chain and the frame it encodes to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		rec, err := store.Get(args[0])
		if err != nil {
			return err
		}

		chain := tiro.NewChainSlots()
		if err := chain.LoadCommand(rec.Command); err != nil {
			return fmt.Errorf("stored chain %q: %w", rec.Name, err)
		}
		frame, err := chain.Frame(active.mode)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Name:    %s\n", rec.Name)
		fmt.Fprintf(out, "Saved:   %s\n", rec.Timestamp)
		fmt.Fprintf(out, "Values:  %s (%d)\n", chain.Command(), chain.Len())
		fmt.Fprintf(out, "Frame:   %s (%s)\n", frame, active.mode)
		return nil
	},
}

var chainListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved chains",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}

		if store.Len() == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No saved chains in %s\n", store.Path())
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSAVED\tVALUES")
		for _, rec := range store.Records() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", rec.Name, rec.Timestamp, rec.Command)
		}
		return w.Flush()
	},
}

func init() {
	chainSendCmd.Flags().StringVar(&chainName, "name", "", "Send a saved chain by name")
	addListenFlag(chainSendCmd)
	chainSaveCmd.Flags().BoolVar(&chainAutoName, "auto", false, `Name the chain "chain N"`)

	chainCmd.AddCommand(chainSendCmd, chainSaveCmd, chainUpdateCmd, chainShowCmd, chainListCmd)
	rootCmd.AddCommand(chainCmd)
}

// parseChain fills a chain from decimal tokens, refusing more than fit
func parseChain(tokens []string) (*tiro.ChainSlots, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: no values given", tiro.ErrParse)
	}
	if len(tokens) > tiro.ChainCapacity {
		return nil, fmt.Errorf("%w: %d values given, a chain holds %d", tiro.ErrRange, len(tokens), tiro.ChainCapacity)
	}
	chain := tiro.NewChainSlots()
	if err := chain.LoadTokens(tokens); err != nil {
		return nil, err
	}
	return chain, nil
}

// resolveChain takes the chain from --name or from the arguments
func resolveChain(args []string) (*tiro.ChainSlots, error) {
	if chainName == "" {
		return parseChain(args)
	}
	if len(args) > 0 {
		return nil, errors.New("give either --name or values, not both")
	}

	store, err := openHistory()
	if err != nil {
		return nil, err
	}
	rec, err := store.Get(chainName)
	if err != nil {
		return nil, err
	}
	chain := tiro.NewChainSlots()
	if err := chain.LoadTokens(rec.Tokens()); err != nil {
		return nil, fmt.Errorf("stored chain %q: %w", rec.Name, err)
	}
	return chain, nil
}
