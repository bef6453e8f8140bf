// Package queryir provides a small query representation over the pass
// journal.
//
// Callers describe which passes they want (by token, kind, trigger, error,
// or the slots a pass notified) without writing SQL:
//
//	[trace flags] → [Query IR] → [SQL backend] → passes in journal order
//
// The store validates a query with Validate, compiles it with package
// querysql and runs it.
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed interfaces using the marker method pattern.
// Only types in this package can implement them, so backends can switch
// over every case:
//
//	switch p := pred.(type) {
//	case Equals:
//	case Touches:
//	case Aborted:
//	case And:
//	}
//
// There is no OR, no projection and no ordering control: every query
// returns whole pass records ordered by seq, then by id.
package queryir
