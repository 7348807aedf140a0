// Package errors provides the structured, actionable errors reported by the
// retain command line tool.
//
// Each error carries a stable code (e.g. "E101") that maps to a registered
// template with a category, a short message and a longer explanation. Errors
// can point at a location in a file, such as the line of retain.json that
// failed to parse, and carry a hint on how to fix the problem.
//
//	err := errors.New("E101").
//	    WithLocation("retain.json", 4, 13).
//	    WithSuggestion("Check for a trailing comma")
//
//	fmt.Print(err.Format())
//	// ERROR E101: Invalid config file
//	//
//	//   retain.json:4:13
//	//
//	//        2 │   "server": {
//	//        3 │     "port": 8080,
//	//   →    4 │     "title": ,
//	//          │             ^
//	//        5 │   }
//	//
//	//   Hint: Check for a trailing comma
package errors
