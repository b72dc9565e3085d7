// Package dsrf validates and decodes DDEX Sales Report Flat Files.
//
// It provides:
//
// - A schema compiler turning the sales-reporting XSD and the AVS
//   (allowed-value-sets) XSD into per-row-type field validators and a
//   per-profile content-model tree (schema/, conformance/)
// - Field validators coercing raw cell text against declared kinds (cells/)
// - A block reader that streams a tab-delimited report file into typed
//   HEAD/BODY/FOOT blocks as a lazy pull sequence (reader/)
// - A grammar matcher verifying a body block's row sequence against the
//   profile content model (conformance/)
// - A report manager orchestrating all files of one report and a block sink
//   for downstream consumers (report/)
//
// Design policy:
// - The root package holds only the shared data model (Cell/Row/Block), the
//   format constants, the error taxonomy and the counting Logger; detailed
//   implementations live under the subsystem packages and internal/.
// - The CLI lives under cmd/dsrf.
//
// Typical usage:
//
//	log, err := dsrf.NewLogger("/tmp/report.log", false)
//	st, err := reader.NewFileReader(log, cfg, "DSR_..._1of1_....tsv").Parse(1)
//	for {
//		blk, err := st.Next()
//		...
//	}
//	err = log.Finalize()
package dsrf
