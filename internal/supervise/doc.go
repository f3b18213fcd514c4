// Package supervise launches the inference service as a detached background
// process and owns its process handle.
//
// The spawn is fire and forget: the supervising process never awaits the
// child in the foreground and is not torn down when the child exits. A
// reaper goroutine logs the exit so a crash surfaces in the logs rather
// than as silence, and the handle exposes process-group signalling for
// container shutdown.
package supervise
