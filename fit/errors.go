// SPDX-License-Identifier: MIT

package fit

import "errors"

var (
	// ErrNotConverged is returned when the optimizer stops without meeting its
	// tolerance; the optimizer's cause is wrapped alongside.
	ErrNotConverged = errors.New("fit: optimizer did not converge")

	// ErrNoData is returned when no file applies to the requested model.
	ErrNoData = errors.New("fit: no applicable measurements")

	// ErrUnknownAlgorithm is returned for an algorithm selector other than 0 or 1.
	ErrUnknownAlgorithm = errors.New("fit: unknown algorithm")
)
