package builders

type Factory struct {
	Verification *VerificationFactory
	User         *UserFactory
	Session      *SessionFactory
	JWT          JWTFactory
}

func NewFactory() *Factory {
	return &Factory{
		Verification: &VerificationFactory{},
		User:         &UserFactory{},
		Session:      &SessionFactory{},
	}
}
