/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/friendsincode/slotsquatter/internal/reservation"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a reservation rule file",
	Long:  "Parse a reservation rule file (size:cron-pattern:duration lines) and report the first error, if any.",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	if err := reservation.Validate(string(data)); err != nil {
		var malformed *reservation.MalformedRuleError
		if errors.As(err, &malformed) {
			return fmt.Errorf("%s: line %d: %s", args[0], malformed.Line, malformed.Reason)
		}
		return err
	}

	sched, err := reservation.Parse(string(data))
	if err != nil {
		return err
	}
	fmt.Printf("%s: ok (%d rules)\n", args[0], len(sched.Entries()))
	return nil
}
