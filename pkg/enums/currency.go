package enums

// Currency is the ISO currency code carried on money amounts.
type Currency string

const CurrencyUSD Currency = "USD"
