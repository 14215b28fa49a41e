// Package catalog maps a user's update request (game version, image type, pic style)
// onto the ordered folder jobs a sync session runs.
package catalog

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/joe/img-updater/internal/config"
	"github.com/joe/img-updater/internal/syncengine"
)

// Image types.
const (
	TypeAll     = "allimages"
	TypePics    = "pics"
	TypeField   = "field"
	TypeCloseup = "closeup"
)

// Game versions.
const (
	VersionYGOPro1 = "ygopro1"
	VersionYGOPro2 = "ygopro2"
)

// Request selects what to update.
type Request struct {
	Version string
	Type    string
	Style   string
}

// Table is one backend's remote folder layout.
type Table struct {
	Pics    map[string]string // style -> remote folder
	Field   string
	Closeup string
}

// Repositories is the layout of the file-host, S3 and SFTP backends: one repository
// (or top-level folder) per image set.
//
//nolint:gochecknoglobals // Static folder table
var Repositories = Table{
	Pics: map[string]string{
		"series10":  "YGOSeries10CardPics",
		"anime":     "YGOAnimeStylePics",
		"fullartv1": "YGOFullArt1Pics",
		"fullartv3": "YGOFullArt3Pics",
		"rose":      "YGORoseStylePics",
		"vanguard":  "YGOVanguardStylePics",
	},
	Field:   "field544x544png",
	Closeup: "YGOTCGOCGPicsNoBG",
}

// ListingFolders is the layout of the folder-listing API backend.
//
//nolint:gochecknoglobals // Static folder table
var ListingFolders = Table{
	Pics: map[string]string{
		"series9":   "/Series9",
		"anime":     "/Anime",
		"fullartv1": "/FullArtv1",
		"fullartv3": "/FullArtv3",
		"rose":      "/Rose",
		"vanguard":  "/Vanguard",
	},
	Field:   "/field",
	Closeup: "/closeup",
}

// localFolders are relative to the game root, per version and image type.
//
//nolint:gochecknoglobals // Static folder table
var localFolders = map[string]map[string]string{
	VersionYGOPro1: {
		TypePics:    "pics",
		TypeField:   "pics/field",
		TypeCloseup: "pics/closeup",
	},
	VersionYGOPro2: {
		TypePics:    "picture/card",
		TypeField:   "picture/field",
		TypeCloseup: "picture/closeup",
	},
}

//nolint:gochecknoglobals // Compiled once
var unsafeCharacters = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// Normalize strips everything but letters, digits and underscores, and lower-cases
// the result.
func Normalize(value string) string {
	return strings.ToLower(unsafeCharacters.ReplaceAllString(value, ""))
}

// Styles returns the pic styles the table offers, sorted.
func (t Table) Styles() []string {
	styles := make([]string, 0, len(t.Pics))
	for style := range t.Pics {
		styles = append(styles, style)
	}

	sort.Strings(styles)

	return styles
}

// Jobs resolves req against the table. Local folders are placed below root. The
// "allimages" type yields pics, field and closeup in that order.
func (t Table) Jobs(root string, req Request) ([]syncengine.FolderJob, error) {
	version := Normalize(req.Version)
	kind := Normalize(req.Type)
	style := Normalize(req.Style)

	locals, ok := localFolders[version]
	if !ok {
		return nil, config.Invalid("version", "unknown game version %q (valid: %s, %s)", req.Version, VersionYGOPro1, VersionYGOPro2)
	}

	var types []string

	switch kind {
	case TypeAll:
		types = []string{TypePics, TypeField, TypeCloseup}
	case TypePics, TypeField, TypeCloseup:
		types = []string{kind}
	default:
		return nil, config.Invalid("type", "unknown image type %q (valid: %s, %s, %s, %s)",
			req.Type, TypeAll, TypePics, TypeField, TypeCloseup)
	}

	jobs := make([]syncengine.FolderJob, 0, len(types))

	for _, each := range types {
		remoteFolder, err := t.remoteFolder(each, style)
		if err != nil {
			return nil, err
		}

		jobs = append(jobs, syncengine.FolderJob{
			LocalFolder:  filepath.Join(root, filepath.FromSlash(locals[each])),
			RemoteFolder: remoteFolder,
		})
	}

	return jobs, nil
}

func (t Table) remoteFolder(kind, style string) (string, error) {
	switch kind {
	case TypeField:
		return t.Field, nil
	case TypeCloseup:
		return t.Closeup, nil
	}

	folder, ok := t.Pics[style]
	if !ok {
		return "", config.Invalid("style", "unknown pic style %q (valid: %s)", style, strings.Join(t.Styles(), ", "))
	}

	return folder, nil
}
