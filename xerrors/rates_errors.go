package xerrors

var (
	// ErrInputMismatch 输入序列长度或形状不一致。
	ErrInputMismatch = New(ErrInvalidArg, 400101, "input mismatch", "input sequence lengths do not agree", nil)
	// ErrUnsupportedVolType 不支持的波动率类型。
	ErrUnsupportedVolType = New(ErrInvalidArg, 400102, "unsupported vol type", "supported types: black, normal", nil)
	// ErrUnsupportedInterp 不支持的插值方法。
	ErrUnsupportedInterp = New(ErrInvalidArg, 400103, "unsupported interpolation method", "supported methods: linear, cubic spline", nil)
	// ErrInvalidBracket 区间端点函数值不异号。
	ErrInvalidBracket = New(ErrInvalidArg, 400104, "invalid bracket", "function must change sign over the bracket", nil)
	// ErrInvalidSnapshot 行情快照校验失败。
	ErrInvalidSnapshot = New(ErrInvalidArg, 400105, "invalid market snapshot", "check tenors, zcb and cap price quotes", nil)
	// ErrInvalidCurve 期限非正或不严格递增，或 ZCB 非正。
	ErrInvalidCurve = New(ErrInvalidArg, 400106, "invalid curve", "tenors must be positive and strictly increasing, zcb must be positive", nil)
	// ErrArbitrageViolation 剥离出的残差 caplet 价格非正，行情曲线自相矛盾。
	ErrArbitrageViolation = New(ErrFailedPrecondition, 412101, "arbitrage violation", "residual caplet price must be positive", nil)
	// ErrNotStripped 尚未执行剥离。
	ErrNotStripped = New(ErrFailedPrecondition, 412102, "vol curve not stripped", "call Strip before querying caplet vols", nil)
	// ErrAlreadyStripped 剥离只能执行一次。
	ErrAlreadyStripped = New(ErrAlreadyExists, 409101, "vol curve already stripped", "a vol curve is stripped exactly once", nil)
	// ErrCacheMiss 缓存未命中。
	ErrCacheMiss = New(ErrNotFound, 404101, "cache miss", "entry not found in cache", nil)
	// ErrNonConvergence 数值求根未收敛。
	ErrNonConvergence = New(ErrInternal, 500101, "root finder did not converge", "try another initial guess or a bracketing method", nil)
)
