// Package redflag contains tests that prove the system refuses unsafe or
// invalid operations: cross-identity access, managed-column writes,
// undeclared fields and statements that escape the ownership scope.
package redflag
