package entity

// RegisterBody returns the stable id of a body.
func (r *Registry) RegisterBody(obj interface{}) (string, error) {
	return r.Register(KindBody, obj)
}

// RegisterSketch returns the stable id of a sketch.
func (r *Registry) RegisterSketch(obj interface{}) (string, error) {
	return r.Register(KindSketch, obj)
}

// RegisterFeature returns the stable id of a feature.
func (r *Registry) RegisterFeature(obj interface{}) (string, error) {
	return r.Register(KindFeature, obj)
}

// RegisterComponent returns the stable id of a component.
func (r *Registry) RegisterComponent(obj interface{}) (string, error) {
	return r.Register(KindComponent, obj)
}

// RegisterParameter returns the stable id of a user parameter.
func (r *Registry) RegisterParameter(obj interface{}) (string, error) {
	return r.Register(KindParameter, obj)
}

// RegisterOccurrence returns the stable id of an occurrence.
func (r *Registry) RegisterOccurrence(obj interface{}) (string, error) {
	return r.Register(KindOccurrence, obj)
}

// RegisterJoint returns the stable id of a joint.
func (r *Registry) RegisterJoint(obj interface{}) (string, error) {
	return r.Register(KindJoint, obj)
}

func (r *Registry) GetBody(id string) (interface{}, bool)       { return r.Get(KindBody, id) }
func (r *Registry) GetSketch(id string) (interface{}, bool)     { return r.Get(KindSketch, id) }
func (r *Registry) GetFeature(id string) (interface{}, bool)    { return r.Get(KindFeature, id) }
func (r *Registry) GetComponent(id string) (interface{}, bool)  { return r.Get(KindComponent, id) }
func (r *Registry) GetParameter(id string) (interface{}, bool)  { return r.Get(KindParameter, id) }
func (r *Registry) GetOccurrence(id string) (interface{}, bool) { return r.Get(KindOccurrence, id) }
func (r *Registry) GetJoint(id string) (interface{}, bool)      { return r.Get(KindJoint, id) }
