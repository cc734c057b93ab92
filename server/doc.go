// Package server exposes an openke.Service over HTTP.
//
// Every operation is a POST endpoint taking and returning JSON, named as in
// the api package. Lookups degrade by default: misses yield zero vectors,
// empty triple lists and -1 ids. Adding ?strict=true surfaces misses as
// 404 (not_found) or 416 (out_of_range).
//
//	srv := server.New(svc,
//	    server.WithAddr(":8000"),
//	    server.WithMaxInFlight(128),
//	    server.WithRequestTimeout(5*time.Second),
//	)
//	err := srv.ListenAndServe(ctx)
package server
