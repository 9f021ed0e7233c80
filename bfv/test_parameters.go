package bfv

var (
	// TestScenario is the toy parameter set N=8, t=17 with one data prime and one special prime.
	TestScenario = ParametersLiteral{
		LogN:             3,
		LogQ:             []int{60, 60},
		PlaintextModulus: 17,
	}

	// TestInsecureSmall is an insecure parameter set used for the sole purpose of fast testing.
	TestInsecureSmall = ParametersLiteral{
		LogN: 5,
		LogQ: []int{50, 50, 60},
		LogT: 16,
	}

	// TestInsecure is an insecure parameter set used for the sole purpose of fast testing.
	TestInsecure = ParametersLiteral{
		LogN: 10,
		LogQ: []int{55, 45, 45, 60},
		LogT: 20,
	}

	// TestParams is the list of parameter sets of the test suite.
	TestParams = []ParametersLiteral{TestScenario, TestInsecureSmall, TestInsecure}
)
