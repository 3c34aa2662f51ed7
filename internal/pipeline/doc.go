// Package pipeline provides the staged processing engine that drives every
// import: a Processor runs a user-defined sequence of named steps over a
// table, accumulates row- and step-level errors into a structured Result, and
// computes a terminal completion status.
//
// The status machine is pending → processing → {completed | partial |
// failed}: completed only when zero errors were recorded, failed when no rows
// survived, partial otherwise. One pass per Process call, no resumption.
//
// Errors never escape Process as Go errors. Step failures are recorded and,
// depending on the configured error threshold, either tolerated or escalated;
// an escalated failure still produces a Result with status failed and a
// critical_error metadata entry. Callers branch on Result.Status, not on
// returned errors.
package pipeline
