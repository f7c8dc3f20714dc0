// Package httpx provides immutable HTTP messages: URIs, header maps,
// requests, responses and server-side requests with decoded query, form,
// cookie and upload data.
//
// Highlights
//   - URI: parsed components with scheme, host and port normalization,
//     a decoded query, and Render for any contiguous component range
//     (scheme through fragment).
//   - Header: case-insensitive, insertion-ordered multimap that keeps
//     the casing a name was last set with.
//   - Messages: Request, Response and ServerRequest are values. Every
//     With* method returns a modified copy and leaves the receiver as it
//     was; copies share one body Stream.
//   - Uploads: ParseUploadedFiles normalizes the nested multipart upload
//     description into an UploadTree of UploadedFiles, which move to
//     their final place at most once through an UploadHost.
//   - Hosts: Environment and ReadServerRequest build a ServerRequest from
//     CGI-style server variables or straight from HTTP/1.x wire data.
//
// Quick start:
//
//	u, _ := httpx.ParseURI("http://user@www.example.org:8080/dir/file.html?q=1#top")
//	fmt.Println(u.Render(httpx.URIHost, httpx.URIFile)) // //www.example.org:8080/dir/file.html
//
//	res := httpx.NewResponse(404, "", httpx.HeaderField("Content-Type", "text/plain"))
//	res = res.WithAddedHeader("Cache-Control", "no-store")
//	fmt.Println(res.StatusCode(), res.ReasonPhrase()) // 404 Not Found
//
// See the bridge subpackage for serving ServerRequests from net/http and
// fasthttp.
package httpx
