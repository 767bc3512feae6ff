// Package core is the programmatic surface for delimited-text files.
//
// [Files] resolves a dialect from each path's extension through an injected
// [dialect.Registry], opens the file (or stdin/stdout for "-"), and hands out
// lazy record sequences or buffered writers:
//
//	files := core.NewFiles(dialect.NewRegistry())
//	for rec, err := range files.OpenRecords(ctx, "orders.csv") {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(rec.Value("id"))
//	}
//
// Sequences open their file when iteration starts and close it on every exit
// path. Each open file is a session with its own id in the logs; an
// [Observer] receives per-record and per-session events.
//
// # Error Handling
//
// Errors from the codec and the registry are returned unchanged so callers
// can use errors.Is and errors.As. [ErrorKind] maps them to short labels for
// metrics and HTTP responses.
package core
