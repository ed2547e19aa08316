// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

// Delta is one event of a token stream: Text, End or Failure.
type Delta interface {
	isDelta()
}

// Text carries the next fragment of generated markup.
type Text struct {
	Text string
}

// End signals normal completion. Reason is the upstream finish reason
// when one was reported.
type End struct {
	Reason string
}

// Failure signals that the stream broke and no more text will arrive.
type Failure struct {
	Err error
}

func (Text) isDelta()    {}
func (End) isDelta()     {}
func (Failure) isDelta() {}
