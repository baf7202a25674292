// Package constants centralizes timeouts and fixed application values.
package constants

import "time"

// Portal defaults
const (
	// DefaultPortalURL - the ArcGIS Online sharing endpoint lives under this host
	DefaultPortalURL = "https://www.arcgis.com"

	// DefaultReferer - referer sent with generateToken requests; the token is
	// only valid for requests carrying the same referer
	DefaultReferer = "https://www.arcgis.com"

	// OpenDataURLFormat - public endpoint for a published layer, keyed by the
	// dashed lowercase title
	OpenDataURLFormat = "https://opendata.gis.utah.gov/datasets/%s"

	// ItemURLFormat - AGOL item page, keyed by item id
	ItemURLFormat = "https://utah.maps.arcgis.com/home/item.html/?id=%s"

	// TokenLifetimeMinutes - requested lifetime for generated tokens. Long
	// enough for a full folder walk plus the fixer pass.
	TokenLifetimeMinutes = 120

	// SearchPageSize - page size for org search and folder item listings
	SearchPageSize = 100
)

// API and Context Timeouts
const (
	// APIContextTimeout - default timeout for API operations (30 seconds)
	APIContextTimeout = 30 * time.Second

	// StagingTimeout - ceiling for one describe-or-stage invocation of the
	// desktop GIS worker. Projection of a large feature class can run for
	// many minutes.
	StagingTimeout = 45 * time.Minute

	// UploadTimeout - ceiling for one service-definition upload
	UploadTimeout = 30 * time.Minute
)

// HTTP Client Timeouts
const (
	// HTTPIdleConnTimeout - how long to keep idle connections open (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (60 seconds)
	HTTPTLSHandshakeTimeout = 60 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing connection (30 seconds)
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for dialer (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second
)
