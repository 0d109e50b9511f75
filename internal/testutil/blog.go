package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/normstore/internal/schema"
)

// BlogSchema declares a small Author / Post / Comment graph:
//
//	Author.posts   <-> Post.author    (many / one)
//	Post.comments  <-> Comment.post   (many / one)
//	Post.related    -> Post           (many, no inverse)
const BlogSchema = `
types: {
	Author: {
		attributes: close({
			id:   int | string
			name: string
		})
		relations: posts: {target: "Post", many: true, inverse: "author"}
	}
	Post: {
		attributes: close({
			id:     int | string
			title:  string
			status: *"draft" | "published"
			tags: [...string]
			meta: {
				views:    int | *0
				featured: bool
			}
		})
		relations: {
			author:   {target: "Author", inverse: "posts"}
			comments: {target: "Comment", many: true, inverse: "post"}
			related:  {target: "Post", many: true}
		}
	}
	Comment: {
		attributes: close({
			id:   int | string
			body: string
		})
		relations: post: {target: "Post", inverse: "comments"}
	}
}
`

// BlogRegistry compiles BlogSchema, failing t on error.
func BlogRegistry(t testing.TB) *schema.Registry {
	t.Helper()
	reg, err := schema.CompileString("blog.cue", BlogSchema)
	require.NoError(t, err)
	return reg
}
