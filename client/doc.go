// Package client talks to an openke server over HTTP.
//
// Client mirrors openke.Service: its methods surface misses as errors that
// unwrap to openke.ErrNotFound or openke.ErrOutOfRange, and transport
// failures as ordinary errors. Client.Fallback returns the degrading view,
// which never fails and substitutes -1 ids, zero vectors and empty triple
// lists, including when the server cannot be reached.
//
//	c, err := client.New(ctx, "http://localhost:8000",
//	    client.WithTimeout(5*time.Second),
//	    client.WithCacheSize(4096),
//	)
//	vec := c.Fallback().EntityVectorByKey(ctx, "m.0abc")
//
// Entity and relation vectors fetched by id are kept in LRU caches. Returned
// vectors may be shared with the cache and must not be modified.
//
// Fallback implements subgraph.Expander, so subgraphs can be assembled on
// the client side with subgraph.NewBuilder.
package client
