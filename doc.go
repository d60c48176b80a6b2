// Package rpcontract holds the values shared by request-context contracts
// and the code generated from them: the Dialect of a context, the
// WriteOperationKind carried by ProxyChange notifications, and the Error
// type used across the module.
//
// The contract model itself lives in package model; package provider
// discovers it from Go source or runtime types, and package gen turns it
// into proxy implementations:
//
//	rpcontract gen ./internal/rpc github.com/acme/app/api
package rpcontract
