package event

// FilterExcludeProducer creates a filter that rejects events from the given producer.
func FilterExcludeProducer(p Producer) FilterFunc {
	return func(evt Event) bool {
		return evt.Producer != p
	}
}

// FilterByProducers creates a filter that allows events from any of the given producers.
func FilterByProducers(producers ...Producer) FilterFunc {
	set := make(map[Producer]struct{}, len(producers))
	for _, p := range producers {
		set[p] = struct{}{}
	}
	return func(evt Event) bool {
		_, ok := set[evt.Producer]
		return ok
	}
}

// FilterPayload creates a filter that checks a typed payload with a predicate.
// Events whose payload is not a T are rejected.
func FilterPayload[T any](predicate func(payload T) bool) FilterFunc {
	return func(evt Event) bool {
		payload, ok := evt.Data.(T)
		if !ok {
			return false
		}
		return predicate(payload)
	}
}

// FilterAnd creates a filter that requires all filters to pass.
func FilterAnd(filters ...FilterFunc) FilterFunc {
	return func(evt Event) bool {
		for _, f := range filters {
			if !f(evt) {
				return false
			}
		}
		return true
	}
}

// FilterOr creates a filter that requires at least one filter to pass.
func FilterOr(filters ...FilterFunc) FilterFunc {
	return func(evt Event) bool {
		for _, f := range filters {
			if f(evt) {
				return true
			}
		}
		return false
	}
}

// FilterNot inverts a filter.
func FilterNot(filter FilterFunc) FilterFunc {
	return func(evt Event) bool {
		return !filter(evt)
	}
}
