// SPDX-License-Identifier: MIT

package powell

// LineMinimize exposes lineMinimize to powell_test.
var LineMinimize = lineMinimize
