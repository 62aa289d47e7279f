// Package domain models Environment Canada weather station data.
//
// # Data Source
//
// Station records come from the Environment Canada "Monthly Values" CSV
// extracts (one row per station per month). The dataset used for development
// covers Canadian stations for 2014; any file with the same column layout
// works. Columns are referenced by header name, so extra columns are ignored.
//
// # Column Conventions
//
// The columns this service reads:
//
//	Stn_Name  station name
//	Lat       latitude, degrees north positive
//	Long      longitude, degrees west negative
//	Prov      province code
//	Tm        mean temperature (°C)
//	Tx        highest monthly maximum temperature (°C)
//	Tn        lowest monthly minimum temperature (°C)
//	P         total precipitation (mm)
//	HDD       degree days below 18 °C
//	CDD       degree days above 18 °C
//	Stn_No    climate station identifier (first 3 digits are the drainage
//	          basin, last 4 characters sort alphabetically)
//
// Missing values appear as "NA" or an empty field. Measurements are modeled
// as pointers so that "missing" and "zero" stay distinguishable: stations
// without a mean temperature are dropped during cleaning, while other
// missing measurements become zero only at feature-matrix build time.
//
// # Coordinate Handling
//
// Clustering on raw degrees distorts east-west distances at high latitudes,
// so stations are filtered to a bounding box and their coordinates projected
// with a spherical Mercator projection anchored at the box's lower-left
// corner. The projected xm/ym values are in meters and feed the feature
// matrix alongside temperature columns.
//
// # ID Generation
//
// Station IDs are deterministic SHA-256 hashes of name|stn_no|lat|lon.
// Re-ingesting the same file produces the same IDs, which keeps run
// assignments comparable across runs and makes downstream upserts
// idempotent. See [generateID].
package domain
