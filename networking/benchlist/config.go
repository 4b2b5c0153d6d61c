// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package benchlist

import "time"

// Config defines benchlist configuration parameters.
type Config struct {
	// Threshold is the number of consecutive rejected proposals a
	// participant accumulates before it gets benched.
	Threshold int `json:"threshold"`
	// Duration a benched participant stays benched.
	Duration time.Duration `json:"duration"`
	// MinimumFailingDuration is the minimum amount of time a participant
	// must have been failing before it is eligible for benching, so a
	// single burst of contention doesn't bench someone outright.
	MinimumFailingDuration time.Duration `json:"minimumFailingDuration"`
}
