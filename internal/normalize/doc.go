// Package normalize converts the raw output of the rule engine and of the
// interactive checks into uniform model.Finding records.
//
// The conversion is pure: it performs no I/O and never fails. Unknown
// severity names become MODERATE and zero instance counts become 1.
package normalize
