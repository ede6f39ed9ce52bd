// Package auth keeps track of who is using the dashboard.
//
// In hosted mode a Manager signs in against the backend's auth service,
// persists the resulting session to a FileStore and refreshes the access
// token shortly before it expires. In postgres mode a Static identity
// stands in for the signed-in user.
//
// Both satisfy Identity, which is all the dashboard needs.
package auth
