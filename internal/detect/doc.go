// Package detect implements the region-of-interest text detection cascade,
// the multi-backend ensemble voter, and the temporal aggregation of per-frame
// evidence into a single per-video summary.
//
// The cascade tests regions in a fixed priority order (subtitles are
// overwhelmingly bottom-positioned, so the common path is one crop) and exits
// early on the first confident hit. Aggregation reduces the ordered sequence
// of per-frame results to the spatial- and temporal-stability statistics the
// confidence policy scores.
package detect
