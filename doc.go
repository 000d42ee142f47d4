// Package gestion provides the client-side session, authorization, and
// HTTP-pipeline layer for the Gestión backend.
//
// The root package defines the shared vocabulary: the Identity snapshot,
// the wire contract (routes, envelope, headers), the error types, and the
// small interfaces (Storage, Navigator, Notifier, Gateway) that concrete
// subpackages implement. Behavior lives in the subpackages: session holds
// the identity and the expiry clock, transport builds the interceptor
// pipeline, guard evaluates route access, and client wires it all together.
//
// Example:
//
//	c, err := client.New(client.Config{BaseURL: "https://api.example.com"})
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//	resp, err := c.HTTP().Get(c.BaseURL() + "/api/clientes")
package gestion
