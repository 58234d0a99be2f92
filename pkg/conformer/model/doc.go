// Package model provides the data structures shared by the conformer packages.
// It defines containers, variants and the work items handed to the dispatcher,
// as well as the hooks that run options implement to observe a pipeline run.
package model
