// Package testutil provides deterministic helpers for tests: a manual
// executor that records scheduled callbacks, fixed identity generators and
// entity fixtures.
//
// testutil must not import the packages it helps test, so everything here
// is expressed in terms of plain functions and strings.
package testutil
