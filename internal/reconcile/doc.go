// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reconcile merges streamed model output into a live document.
//
// Generated HTML arrives in small deltas. The Reconciler buffers them and,
// whenever the buffer is safe to render (its tags balance, or it ends with
// </body> or </html>), parses the whole buffer from scratch and replaces
// the range it owns in one atomic step. The document therefore only ever
// shows complete markup.
//
// Ownership depends on the selection when the request starts:
//
//   - empty selection: the whole document is owned and each checkpoint
//     replaces [0, size)
//   - non-empty selection: the range starts at the selection start and
//     ends right after the content inserted by the last checkpoint
//
// # Key Types
//
//   - Reconciler: Ingest, Finish and Abort for one request at a time
//   - Delta: Text, End and Failure stream events
//   - Session: runs a Reconciler from a delta channel with render pacing
//   - Coordinator: hands out leases so only one request writes at a time
//
// # Usage
//
//	coord := reconcile.NewCoordinator(doc)
//	lease, err := coord.Begin(ctx)
//	if err != nil {
//	    return err
//	}
//	defer lease.Release()
//
//	session := reconcile.NewSession(lease.Surface(), reconcile.DefaultSessionConfig())
//	result := session.Run(lease.Context(), deltas)
package reconcile
