// Package mock implements the substitution registry consulted by the
// interception layer. A registered name short-circuits the real operation:
// static entries return one fixed value for any arguments, dynamic entries
// map a canonical serialization of the argument list to a value. A dynamic
// entry that does not cover an observed argument list is a hard failure,
// never a fall-through to real evaluation.
package mock
