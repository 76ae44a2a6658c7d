package record

import "github.com/ibdtool/ibdtool/internal/page"

// INODEEntries decodes every FSEG_INODE entry on an INODE page. count
// is the number of entries present, bounded by the page's available
// space; callers typically pass the fixed per-page inode capacity.
func INODEEntries(pg []byte, count int) ([]page.InodeEntry, error) {
	entries := make([]page.InodeEntry, 0, count)
	for i := 0; i < count; i++ {
		e, err := page.ParseInodeEntry(pg, i)
		if err != nil {
			return entries, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// XDESEntries decodes every extent descriptor starting at byteOffset
// (the XDES array's absolute start within the page), stopping at count
// entries.
func XDESEntries(pg []byte, byteOffset, count int) ([]page.XDESEntry, error) {
	entries := make([]page.XDESEntry, 0, count)
	for i := 0; i < count; i++ {
		e, err := page.ParseXDESEntry(pg, byteOffset, i)
		if err != nil {
			return entries, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
