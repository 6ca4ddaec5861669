package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/randalmurphal/rewind/pkg/rewind/costmodel"
	"github.com/spf13/cobra"
)

func newPlanCmd(opts *options) *cobra.Command {
	var closed bool
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the optimal checkpoint plan for n elements and k checkpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.settings(cmd)
			if err != nil {
				return err
			}
			if s.Length < 1 {
				return errors.New("plan needs --n")
			}

			model, closeStore, err := s.Model()
			if err != nil {
				return err
			}
			defer closeStore()

			p, err := model.Plan(cmd.Context(), costmodel.Fixed(s.Length), s.Budget)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "length\t%d\n", p.Length)
			fmt.Fprintf(w, "budget\t%d\n", p.Budget)
			fmt.Fprintf(w, "total replay\t%d\n", p.Total)
			fmt.Fprintf(w, "per backward step\t%d\n", p.PerStep)
			fmt.Fprintf(w, "placements\t%v\n", p.Placements)
			if closed {
				// R(n,k) is the cold cost; the total above starts warm.
				r, err := costmodel.Repetitions(s.Length, s.Budget)
				if err != nil {
					return err
				}
				c, err := costmodel.ClosedForm(s.Length, s.Budget)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "repetitions\t%d\n", r)
				fmt.Fprintf(w, "closed form R(n,k)\t%d\n", c)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int("n", 0, "sequence length")
	cmd.Flags().Int("k", 0, "checkpoint budget")
	cmd.Flags().BoolVar(&closed, "closed", false, "also print the closed-form segment cost")
	return cmd
}
