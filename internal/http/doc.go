// Package http exposes the press services over a chi router.
//
// Public routes serve published content with bodies rendered through the
// sanitizing Markdown pipeline:
//   - Posts: /posts, /posts/{slug}
//   - Library: /library?kind=, /library/{slug}
//
// Panel routes require a staff actor resolved by the configured AuthProvider:
//   - Preview: /panel/markdown/preview
//   - Posts: /panel/posts, /panel/posts/{id}
//   - Library: /panel/library, /panel/library/{id},
//     /panel/library/{id}/tracks, /panel/library/{id}/tracks/{trackID}
//   - Uploads: /panel/uploads
//
// Hosts can mount the routes on their own chi router with API.Register.
package http
