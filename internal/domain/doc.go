// Package domain models KNMI (Royal Netherlands Meteorological Institute)
// surface station data and the spatial interpolation built on top of it.
//
// # Data Sources
//
// Two independently maintained tables describe the same stations:
//
//   - The station catalog lists one station per row with six cells:
//     id, name, type, latitude, longitude, elevation. Coordinates are written
//     in degrees and minutes, e.g. "52 55" or "52°55'". The first six-cell row
//     holds the column names; rows with any other cell count are captions,
//     footers or spacers.
//   - The live measurement table ("Waarnemingen") lists the latest reading per
//     station, identified only by a free-text name. All rows of one table share
//     the observation instant printed in the page header, e.g.
//     "Waarnemingen 19 oktober 2026 14:00 uur" (Dutch month names, local time).
//
// # Degree-Minute Conventions
//
//	"52 55"   → 52 + 55/60 = 52.9167
//	"04°47'"  → 4 + 47/60  = 4.7833
//	"52 55 04 47" → [52.9167, 4.7833] (latitude and longitude bundled)
//
// Degrees and minutes are exactly two digits each. Text without such a pair
// parses to an empty result, which the catalog build reports as a warning and
// excludes the station. See [ParseDegreeMinutes].
//
// # Station Name Reconciliation
//
// Measurement names do not always match catalog names. A small alias table
// rewrites known systematic differences (the measurement table uses the town
// "Den Helder" where the catalog uses the airfield "De Kooy"; "Eelde" is
// catalogued as "Groningen"). The rewritten name is then compared against every
// catalog name with the Ratcliff/Obershelp ratio and the first highest-scoring
// station wins. No minimum score is enforced: a weak match is still a match.
// See [Matcher].
//
// # Interpolation
//
// Inverse distance weighting runs on planar (lon, lat) degree coordinates, an
// approximation that only holds over a small region such as the Netherlands.
// A query point that coincides with one or more stations returns their mean
// value exactly; otherwise each station is weighted by 1/d^p. See [Estimate]
// and [SampleGrid].
package domain
