package zkelection

// CandidateRegistrar creates this process's ephemeral-sequential candidate
// node. The node is never deleted explicitly; it goes away with the session.
type CandidateRegistrar struct {
	coord     Coordinator
	namespace string
	prefix    string
	data      []byte
}

func NewCandidateRegistrar(coord Coordinator, cfg Config) *CandidateRegistrar {
	return &CandidateRegistrar{
		coord:     coord,
		namespace: cfg.ElectionNamespace,
		prefix:    cfg.CandidatePrefix,
		data:      cfg.CandidateDataPayload,
	}
}

func (r *CandidateRegistrar) Register() (*CandidateNode, error) {
	data := r.data
	if data == nil {
		data = []byte{}
	}
	path, err := r.coord.CreateEphemeralSequential(r.namespace+"/"+r.prefix, data)
	if err != nil {
		return nil, &RegistrationError{Namespace: r.namespace, Err: err}
	}
	node, err := NewCandidateNode(r.namespace, path)
	if err != nil {
		return nil, &RegistrationError{Namespace: r.namespace, Err: err}
	}
	return node, nil
}
