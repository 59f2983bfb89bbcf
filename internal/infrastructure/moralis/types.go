package moralis

type nativeBalanceResp struct {
	Balance string `json:"balance"`
}

type tokenBalance struct {
	TokenAddress string `json:"token_address"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	Decimals     int    `json:"decimals"`
	Balance      string `json:"balance"`
	PossibleSpam bool   `json:"possible_spam"`
}

type tokenPriceResp struct {
	TokenName    string  `json:"tokenName"`
	TokenSymbol  string  `json:"tokenSymbol"`
	TokenAddress string  `json:"tokenAddress"`
	USDPrice     float64 `json:"usdPrice"`
}
