package ctfd

import (
	"github.com/dimasma0305/ctfscrape/function/utils"
)

// CTFd lists files as site relative paths carrying a download token.
type fileUrl string

// absolute download url of the file
func (fu fileUrl) Resolve(base string) string {
	return utils.ResolveURL(base, string(fu))
}
