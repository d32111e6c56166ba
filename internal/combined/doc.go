// Package combined holds benchmarks that exercise the queue, cancel and
// tick packages together, in the shape of the pipeline hot loops.
//
// Isolated micro-benchmarks hide the cost of a consumer checking its
// cancellation token and progress ticker on every item; these do not.
// The lock-free ring from go-lock-free-ring is included as a baseline for
// what a non-blocking, reject-when-full MPSC design costs in comparison.
package combined
