package diaries

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePattern turns a search keyword into a substring pattern for
// ILIKE ... ESCAPE '\'. Wildcards in the keyword match literally.
func LikePattern(keyword string) string {
	return "%" + likeEscaper.Replace(keyword) + "%"
}
