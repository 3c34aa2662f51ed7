// Package convert implements value-level type coercion for the ingestion
// pipeline.
//
// Conversions are tolerant by design: malformed input produces a null value,
// never an error, so data quality problems surface through validation and the
// processing result instead of aborting a batch. The only error a Converter
// returns is for an unsupported target type name, which is a configuration
// mistake rather than bad data.
//
// Numeric parsing understands both Brazilian ("1.234,56") and international
// ("1,234.56") formats: when both separators appear, the rightmost one is the
// decimal point. Currency prefixes ("R$", "$") are stripped before parsing.
// Date parsing tries a fixed, ordered list of layouts with ISO-8601 first;
// the order is load-bearing and must not be changed, since several layouts
// are ambiguous with each other.
package convert
