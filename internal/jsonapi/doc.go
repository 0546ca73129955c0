// Package jsonapi implements the plain per-record JSON-API conversions the
// graph serializer and normalizer build on.
//
// Serializer turns one record into a resource object holding its type,
// optional id and dasherized attributes. It never looks at relationships.
//
// Normalizer turns a wire document into store shape: payload types become
// model names, wire keys become record field names and the correlation
// token attribute is dropped.
package jsonapi
