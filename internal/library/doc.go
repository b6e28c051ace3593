// Package library loads whole collections out of the paginated Web API.
//
// # Loops
//
// Saved tracks and saved albums are offset-paginated: [Service] asks for pages of [PageSize]
// until one comes back empty or [MaxItems] have been collected. Followed artists use the
// "after" cursor and stop on an absent or repeated cursor, an empty page, or the same cap.
// Playlists and playlist tracks delegate to the API client, which follows "next" links itself.
//
// # Progress Reporting
//
// Every load accepts an optional progress channel. Updates are sent with select/default so a
// slow or absent reader never blocks the load.
package library
