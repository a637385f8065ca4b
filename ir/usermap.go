package ir

// UserMap records which labels mention each label and parameter.
type UserMap struct {
	labels map[*Label][]*Label
	params map[*Parameter][]*Label
}

// NewUserMap returns an empty map.
func NewUserMap() *UserMap {
	return &UserMap{
		labels: make(map[*Label][]*Label),
		params: make(map[*Parameter][]*Label),
	}
}

func appendUnique(list []*Label, l *Label) []*Label {
	for _, x := range list {
		if x == l {
			return list
		}
	}
	return append(list, l)
}

func (m *UserMap) addLabel(target, user *Label) {
	m.labels[target] = appendUnique(m.labels[target], user)
}

func (m *UserMap) addParam(target *Parameter, user *Label) {
	m.params[target] = appendUnique(m.params[target], user)
}

// Users returns the labels that mention l, in insertion order.
func (m *UserMap) Users(l *Label) []*Label {
	return m.labels[l]
}

// ParamUsers returns the labels that read p.
func (m *UserMap) ParamUsers(p *Parameter) []*Label {
	return m.params[p]
}

// HasSingleCaller reports whether l is mentioned by exactly one label, and
// that label enters or continues to it.
func (m *UserMap) HasSingleCaller(l *Label) bool {
	users := m.labels[l]
	if len(users) != 1 {
		return false
	}
	u := users[0]
	return u.IsCalling(l) || u.IsContinuingTo(l)
}

// BuildUserMap returns the user map of labels.
func BuildUserMap(labels []*Label) *UserMap {
	m := NewUserMap()
	for _, l := range labels {
		l.InsertIntoUserMap(m)
	}
	return m
}
