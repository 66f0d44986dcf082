/*
Package lightrecord turns arbitrary query results into read-only records shaped
exactly like the result. It sits on database/sql: you write the SQL, lightrecord
looks at the columns the driver reports and hands back one [Record] per row.

# Overview

Full model mappers build one mutable, validated, change-tracked object per row
and assume the result carries the model's own columns. Reports, exports, and
ad-hoc joins select subsets, supersets, or computed columns instead. lightrecord
builds a [RecordType] for the column list a query actually returned, caches it,
and wraps each row's driver values without further conversion.

# Record types

A [Signature] is the ordered, deduplicated list of result column names. The pair
(Base name, Signature) keys a process-wide [Registry]; the first query with a
given shape synthesizes the RecordType, every later one reuses the identical
pointer. Entries are never evicted: the number of shapes is bounded by the
queries in a program, not by the data. Resolution is safe for concurrent use and
synthesizes each shape at most once.

A RecordType exposes the column names, an attribute test, and an identity column:
the [Base] primary key when the query selected it. Queries that project the key
away produce records whose [Record.Identity] reports ok == false.

# Consumption

  - [Query] reads the whole result, then returns the records in row order. Any
    failure returns the error and no records.
  - [Get] returns the first row or sql.ErrNoRows.
  - [Each] and [All] stream: one row is read from the live cursor only after the
    previous one was handled, and nothing is retained between rows.

Streaming runs on a connection checked out from a [Pool]. [WithConn] owns that
checkout and checks the connection back in exactly once on every exit path:
completion, [ErrStop], a failure, or a break out of a range loop.

# Error handling

  - Driver, pool, and visitor errors are returned unchanged; errors.Is works on
    your own sentinels.
  - No retries and no partial eager results.
  - A missing identity is not an error.

# Extras

[Rebind] rewrites :named parameters and placeholder styles; [NamedQuery] and
[NamedEach] combine it with the read paths. A [Record] works as named
params, so one query's row can feed the next. [Bind] copies a record into a struct
using `db` tags when generic code wants a typed value.

Records are views over fetched data. [Record.Set] exists for callers that
assign attributes generically; it changes the in-memory value only and is never
written back.
*/
package lightrecord
