// Package meaning translates detected sign labels into road-rule explanations.
//
// Resolution walks an ordered rule table and returns the explanation of the first
// rule whose matcher accepts the label. Every table ends with a catch-all rule, so
// resolution is total: any label, including one the table has never seen, yields a
// non-empty explanation.
//
// Labels are normalised before matching: Unicode NFKC, case folding, '_' and '-'
// read as spaces, and runs of whitespace collapsed. "STOP_sign", "stop sign" and
// "Stop-Sign" therefore resolve identically.
//
// Resolution is a pure function of the label and the table. Tables are immutable
// once built and safe for concurrent use.
package meaning
