// Package model defines the data structures shared by the crawler, the
// output writers and the SQLite archive.
//
// The only type produced by a crawl is Page: an absolute URL paired with the
// text extracted from it. Pages are serialized as JSON objects with the keys
// "path" and "text", which is the format downstream indexers consume.
package model
