// Package models defines the domain values shared by the API client, the
// library use cases, and the playback controller.
//
//   - [User] : the signed-in account, fetched once per login
//   - [Track], [Album], [Artist], [Playlist] : library entities
//   - [PlaybackState] : an immutable snapshot of the player, compared with [PlaybackState.Equal]
//   - [Page] : one page of a paginated collection
//
// None of these types are persisted; they are rebuilt from the Web API on demand.
package models
