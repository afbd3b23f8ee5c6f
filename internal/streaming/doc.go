/*
Package streaming protects long HTTP responses from stalled clients.

The API server runs without a global write timeout so multi-gigabyte
downloads are not cut off. Writer restores a bound per write instead: before
each Write it extends the connection's write deadline by WriteTimeout through
http.ResponseController. A client that stops reading makes the pending write
fail with ErrWriteTimeout and the handler returns.

	sw := streaming.NewWriter(r.Context(), w, streaming.DefaultConfig())
	defer sw.Close()
	http.ServeContent(sw, r, name, modTime, file)
	sent, took := sw.Stats()

Because Writer is a full http.ResponseWriter, ServeContent still handles
Range, If-Modified-Since and HEAD. Writers that do not support deadlines,
such as httptest.ResponseRecorder, are written to without one.
*/
package streaming
