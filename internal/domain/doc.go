// Package domain models tabular traffic-incident data and the rules that
// reconcile and clean it.
//
// # Data Sources
//
// Three public datasets feed the pipeline:
//
//	AXA México   yearly CSVs of insured vehicle incidents, published as zip
//	             archives at https://files.i2ds.org/OpenDataAxaMx/. Latin-1
//	             encoded. Files before 2020 carry a header row; from 2020 on
//	             they are headerless and rely on column position.
//	INEGI ATUS   the national road-accident census ("Accidentes de Tránsito
//	             Terrestre en Zonas Urbanas y Suburbanas"), one CSV per year
//	             inside a single zip archive. Latin-1 encoded, delimiter not
//	             guaranteed.
//	Open-Meteo   hourly weather series fetched from the archive API and
//	             stored as UTF-8 CSV by the fetch stage.
//
// # Table Representation
//
// [Table] keeps cells as strings because the upstream files disagree about
// types year over year (the same column may hold "19.4", "19,4" or "\N").
// The empty string is the single null marker; every cleaning rule reads and
// writes that convention.
//
// # Schema Reconciliation
//
// AXA changed its export format several times, so a canonical column set
// ([AXASchema], 44 columns) defines the target shape. [Reconcile] detects
// the delimiter, decides whether the first row is a header, maps headerless
// files by position, fills missing columns with nulls, drops unknown ones
// and reorders to the canonical order. Sources without a canonical schema
// (INEGI, weather) pass through with their own header.
//
// # Cleaning Semantics
//
// [Clean] applies a fixed rule order:
//
//	1. drop exact duplicate rows (first occurrence wins)
//	2. trim and uppercase column names
//	3. replace the sentinel tokens "\N", " " and "" with null
//	4. coerce numeric columns (unparsable values become null)
//	5. coerce binary columns ("SI"/"TRUE" → "true", anything else → "false")
//	6. drop rows with a null in any required column
//
// The order matters: sentinel replacement must precede the numeric and
// binary coercions, and the required-column filter sees post-coercion
// values. Every rule maps clean cells to themselves, so re-cleaning a
// table is safe.
//
// Binary coercion accepts "TRUE" alongside "SI" so that already-cleaned
// values survive a second pass. Unrecognized tokens collapse to "false"
// rather than null, which keeps the flag columns total at the cost of
// conflating "NO" with "unknown".
package domain
