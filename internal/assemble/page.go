package assemble

import (
	"sort"

	"github.com/MeKo-Tech/docslice/internal/document"
	"github.com/MeKo-Tech/docslice/internal/engine"
)

// assemblePages groups the flat, sequence-ordered slice list by page and
// bounds the result to the requested range. A slice whose positions span
// several pages is attached to each of them; its sequence number is the one
// assigned at first emission and is not re-issued per page. Pages outside
// [first, last] are dropped entirely.
func assemblePages(slices []document.Slice, pageInfos []engine.PageInfo, first, last int) []document.Page {
	infos := make([]engine.PageInfo, 0, len(pageInfos))
	for _, info := range pageInfos {
		if info.PageNo >= first && info.PageNo <= last {
			infos = append(infos, info)
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].PageNo < infos[j].PageNo })

	pages := make([]document.Page, 0, len(infos))
	for _, info := range infos {
		page := document.Page{
			PageNo: info.PageNo,
			Width:  info.Width,
			Height: info.Height,
			Slices: []document.Slice{},
		}
		for _, s := range slices {
			if sliceTouchesPage(s, info.PageNo) {
				page.Slices = append(page.Slices, s)
			}
		}
		pages = append(pages, page)
	}
	return pages
}

func sliceTouchesPage(s document.Slice, pageNo int) bool {
	for _, pos := range s.Positions {
		if pos.PageNo == pageNo {
			return true
		}
	}
	return false
}
