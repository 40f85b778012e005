package domain

var Tables = []interface{}{
	&Product{},
	&Category{},
}
