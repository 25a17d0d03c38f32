// Package session implements server side sessions: records live in a Store
// (the relational database or Redis) and the client holds a cookie carrying
// the session id signed with a server secret.
package session
