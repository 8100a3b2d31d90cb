// Package node names the HTTP-facing surface a meshlink process exposes.
package node

import "github.com/gin-gonic/gin"

// Node is a process with an identity and a status router.
type Node interface {
	NodeID() string
	Kind() string
	HTTPRouter() *gin.Engine
	Ready() bool
}
