// Package api is the REST client for the hosted backend (a Supabase
// project).
//
// Endpoints used:
//   - /auth/v1: password sign-in and sign-up, token refresh, logout, user
//     lookup and OAuth authorize URLs
//   - /rest/v1/candidates: list, status update and delete (PostgREST)
//   - /functions/v1/add-candidate: candidate creation on behalf of the
//     signed-in user
//   - /storage/v1/object/<bucket>: resume uploads and public URLs
//
// Every request carries the project anon key in the apikey header. The
// Authorization header carries the user's access token when a TokenSource
// is configured, the anon key otherwise.
package api
