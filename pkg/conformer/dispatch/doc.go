// Package dispatch runs a variant generator over a batch of work items.
//
// Three backends share one contract. The serial backend runs every item in the calling goroutine, the
// multiprocess backend fans the items out to a bounded pool of worker goroutines, and the distributed backend
// hands them to worker ranks of a World through message passing. The backend is picked once, when the
// Dispatcher is created, and switching it never changes the result set: results are always flattened in item
// order.
//
// A failing item never aborts the batch. Errors returned by the generator, and panics raised by it, are
// recorded in the ItemReport of that item and logged once, and the other items keep running.
package dispatch
