package importer

// templateDedup maps a stripped template to its dense per-import id.
// Scoped to one import; state is discarded when the import ends.
type templateDedup struct {
	ids  map[string]int64
	next int64
}

func newTemplateDedup() *templateDedup {
	return &templateDedup{
		ids:  make(map[string]int64),
		next: 1,
	}
}

// Resolve returns the id for a template, allocating the next sequential id
// on first sight. inserted is true exactly when this call allocated the id;
// the caller stages the template row in that case.
func (d *templateDedup) Resolve(template string) (id int64, inserted bool) {
	if id, ok := d.ids[template]; ok {
		return id, false
	}
	id = d.next
	d.next++
	d.ids[template] = id
	return id, true
}
