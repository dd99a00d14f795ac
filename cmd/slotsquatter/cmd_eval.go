/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/slotsquatter/internal/reservation"
)

var (
	evalExecutors int
	evalAt        string
)

var evalCmd = &cobra.Command{
	Use:   "eval <file>",
	Short: "Evaluate a reservation rule file offline",
	Long:  "Parse a rule file and print the reserved slot count and next change instant for a hypothetical node, without a running server.",
	Args:  cobra.ExactArgs(1),
	RunE:  runEval,
}

func init() {
	evalCmd.Flags().IntVar(&evalExecutors, "executors", 1, "executor count of the hypothetical node")
	evalCmd.Flags().StringVar(&evalAt, "at", "", "evaluation instant (RFC 3339, defaults to now)")
}

// flagNode satisfies the reservation node contract for offline evaluation.
type flagNode int

func (n flagNode) ExecutorCount() int { return int(n) }

func runEval(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	sched, err := reservation.Parse(string(data))
	if err != nil {
		return err
	}

	at := time.Now()
	if evalAt != "" {
		at, err = time.Parse(time.RFC3339, evalAt)
		if err != nil {
			return fmt.Errorf("invalid --at instant: %w", err)
		}
	}

	reserved, err := sched.SizeOfReservation(flagNode(evalExecutors), at)
	if err != nil {
		return err
	}
	next, err := sched.TimeOfNextChange(at)
	if err != nil {
		return err
	}

	fmt.Printf("at:         %s\n", at.Format(time.RFC3339))
	fmt.Printf("reserved:   %d\n", reserved)
	if next.Equal(reservation.Never) {
		fmt.Println("next change: never")
	} else {
		fmt.Printf("next change: %s\n", next.Format(time.RFC3339))
	}
	return nil
}
