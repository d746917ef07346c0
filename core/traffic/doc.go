// Package traffic defines the persisted state shared by every request pipeline:
// client reputation entries and traffic records, plus the store contracts the
// gate, recorder, segmentation engine and completion detector rely on.
//
// A session is not a stored entity. It is the set of records sharing the same
// session id, and its id is the id of its opening record:
//
//	rec.Session = traffic.Unassigned()        // at creation
//	rec.Session = traffic.Assigned(rec.ID)    // opens a session
//	rec.Session = prev.Session               // joins one
//
// Stores only need single-key atomicity. AssignSession is a conditional write
// that succeeds only while the record is still unassigned, so an assignment
// never changes once made.
//
// MemoryStore is the reference implementation used by tests and single-process
// deployments. Durable implementations live in integration/database/mongo and
// integration/database/pg.
package traffic
